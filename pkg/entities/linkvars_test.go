package entities

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestComputeLinkVariableNames(t *testing.T) {
	svc := &Service{Name: "web-app"}
	c := &Container{
		Name:    "web-app.1",
		Service: svc,
		Ports: map[string]PortMapping{
			"http": {Name: "http", Exposed: Port{Number: 80, Protocol: TCP}},
		},
	}

	names := ComputeLinkVariableNames(c)
	assert.Equal(t, names.Host, "WEB_APP_WEB_APP_1_HOST")
	assert.Equal(t, names.Port["http"], "WEB_APP_WEB_APP_1_HTTP_PORT")
	assert.Equal(t, names.InternalPort["http"], "WEB_APP_WEB_APP_1_HTTP_INTERNAL_PORT")
}

func TestInstancesVariableName(t *testing.T) {
	svc := &Service{Name: "db.primary"}
	assert.Equal(t, InstancesVariableName(svc), "DB_PRIMARY_INSTANCES")
}

func TestLinkNamespaceSlugSanitizes(t *testing.T) {
	svc := &Service{Name: "my service!"}
	assert.Equal(t, svc.LinkNamespace(), "MY_SERVICE_")
}
