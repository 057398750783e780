package entities

import "fmt"

// LinkVariableNames computes the deterministic environment variable names
// contributed by one Container to a peer or dependent, per spec.md §3:
//
//	<SVC>_<INST>_HOST
//	<SVC>_<INST>_<PORTNAME>_PORT
//	<SVC>_<INST>_<PORTNAME>_INTERNAL_PORT   (only when internal is requested)
//
// The actual decision of *which* containers receive the internal vs.
// external variant (peers always get internal; requires/wants_info
// dependents get external) is made by pkg/conductor, which has the
// dependency graph; this type only knows how to name variables for one
// container.
type LinkVariableNames struct {
	Host string
	Port map[string]string
	InternalPort map[string]string
}

func instanceSlug(name string) string {
	return slugUpper(name)
}

// ComputeLinkVariableNames returns the variable names this container
// would contribute to another container's environment.
func ComputeLinkVariableNames(c *Container) LinkVariableNames {
	prefix := fmt.Sprintf("%s_%s", c.Service.LinkNamespace(), instanceSlug(c.Name))
	names := LinkVariableNames{
		Host:         prefix + "_HOST",
		Port:         map[string]string{},
		InternalPort: map[string]string{},
	}
	for portName := range c.Ports {
		portSlug := slugUpper(portName)
		names.Port[portName] = fmt.Sprintf("%s_%s_PORT", prefix, portSlug)
		names.InternalPort[portName] = fmt.Sprintf("%s_%s_INTERNAL_PORT", prefix, portSlug)
	}
	return names
}

// InstancesVariableName is the `<SVC>_INSTANCES` variable name enumerating
// a service's instance names.
func InstancesVariableName(s *Service) string {
	return s.LinkNamespace() + "_INSTANCES"
}
