package domain

import "fmt"

// EntityReference is an opaque string identifying an entity within a
// manager. Whether a given string is well-formed is the manager's
// decision; this type only carries a string that has already passed
// that check (or is about to be handed to the manager for one).
type EntityReference struct {
	ref string
}

func NewEntityReference(ref string) EntityReference {
	return EntityReference{ref: ref}
}

func (e EntityReference) String() string { return e.ref }

// Context is an opaque correlation object threaded unchanged through
// every call of one logical host operation. The invocation core never
// inspects its contents, only forwards it by identity; managers use it
// for session, locale and access-pattern state.
type Context struct {
	// Locale describes the host environment the calls originate from.
	Locale map[string]string
	// ManagerState is an opaque token owned by the manager.
	ManagerState any
}

func NewContext() *Context {
	return &Context{Locale: map[string]string{}}
}

// Capability flags functionality a manager declares support for.
// Convenience layers query HasCapability before attempting the
// corresponding call; invoking an unsupported method is a programmer
// error, not a batch element error.
type Capability string

const (
	CapabilityEntityReferenceIdentification Capability = "entityReferenceIdentification"
	CapabilityExistenceQueries              Capability = "existenceQueries"
	CapabilityResolution                    Capability = "resolution"
	CapabilityPublishing                    Capability = "publishing"
)

func (c Capability) Validate() error {
	switch c {
	case CapabilityEntityReferenceIdentification, CapabilityExistenceQueries,
		CapabilityResolution, CapabilityPublishing:
		return nil
	default:
		return fmt.Errorf("unknown capability: %s", c)
	}
}

// Access names the mode a host intends to use an entity in.
type Access int

const (
	AccessRead Access = iota
	AccessWrite
	AccessCreateRelated
	AccessManagerDriven
)

var accessNames = [...]string{"read", "write", "createRelated", "managerDriven"}

func (a Access) Name() string {
	if a < 0 || int(a) >= len(accessNames) {
		return "unknown"
	}
	return accessNames[a]
}

// ResolveAccess is the access subset valid for resolution.
type ResolveAccess = Access

// PublishingAccess is the access subset valid for preflight/register.
type PublishingAccess = Access
