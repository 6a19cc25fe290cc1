package layer

// GenericArgument requires the type argument at Position of the capability
// Capability to be assignable to Base. Positions are 1-based.
type GenericArgument struct {
	Capability TypeKey
	Base       TypeKey
	Position   int
}

// Naming requires implementers of a capability tagged Scope to be named after
// it, with StripSuffix replaced by AppendSuffix.
type Naming struct {
	Scope        Role
	StripSuffix  string
	AppendSuffix string
}

// Constraints are the structural rules of a layer beyond its dependency
// allowlist. Zero values disable the corresponding rule.
type Constraints struct {
	// CheckDependencies enables the allowlist rule.
	CheckDependencies bool
	// AllowedCapabilities: a tagged class must carry at least one of these.
	AllowedCapabilities []Role
	// ForbiddenCapabilities may not be carried at all.
	ForbiddenCapabilities []Role
	// RequiredCapability must be carried; when RequiredScope is set only by
	// classes implementing a capability tagged with that role.
	RequiredCapability Role
	RequiredScope      Role
	// Interface requires the class to be an interface.
	Interface bool
	// AssignableTo requires assignability to at least one of these types.
	AssignableTo     []TypeKey
	GenericArguments []GenericArgument
	// Factory requires the factory method contract.
	Factory bool
	Naming  *Naming
	// IsolateFrom forbids dependencies on the packages of these layers, except
	// for classes implementing a capability tagged ExemptRole.
	IsolateFrom []Name
	ExemptRole  Role
}

// AllRoles lists every capability role.
var AllRoles = []Role{
	RoleRepository, RoleDomainService, RoleValueObject, RoleIdentity, RoleFactory,
	RoleUseCase, RoleOutputPort, RoleAdapter, RoleApplicationService,
}

// RolesExcept returns AllRoles without keep.
func RolesExcept(keep ...Role) []Role {
	out := make([]Role, 0, len(AllRoles))
	for _, r := range AllRoles {
		if !containsRole(keep, r) {
			out = append(out, r)
		}
	}
	return out
}

func containsRole(roles []Role, r Role) bool {
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}

// DefaultConstraints returns the constraint table entry for a layer.
func DefaultConstraints(name Name) Constraints {
	switch name {
	case SharedKernel:
		return Constraints{CheckDependencies: true}
	case Domain:
		return Constraints{
			CheckDependencies:     true,
			AllowedCapabilities:   []Role{RoleRepository, RoleDomainService, RoleValueObject, RoleIdentity, RoleFactory},
			ForbiddenCapabilities: []Role{RoleUseCase, RoleAdapter, RoleOutputPort, RoleApplicationService},
		}
	case Command:
		return Constraints{
			CheckDependencies:     true,
			ForbiddenCapabilities: AllRoles,
			AssignableTo:          []TypeKey{TypeCommand},
			Factory:               true,
		}
	case Query:
		return Constraints{
			CheckDependencies:     true,
			ForbiddenCapabilities: AllRoles,
			AssignableTo:          []TypeKey{TypeQuery},
			Factory:               true,
		}
	case Handler:
		return Constraints{
			CheckDependencies:     true,
			RequiredCapability:    RoleApplicationService,
			RequiredScope:         RoleUseCase,
			ForbiddenCapabilities: RolesExcept(RoleApplicationService),
			Naming:                &Naming{Scope: RoleUseCase, StripSuffix: "UseCase", AppendSuffix: "Handler"},
		}
	case InputPort:
		return Constraints{
			CheckDependencies:     true,
			RequiredCapability:    RoleUseCase,
			ForbiddenCapabilities: RolesExcept(RoleUseCase),
			Interface:             true,
			AssignableTo:          []TypeKey{TypeCommandHandler, TypeQueryHandler},
			GenericArguments: []GenericArgument{
				{Capability: TypeCommandHandler, Base: TypeCommand, Position: 1},
				{Capability: TypeQueryHandler, Base: TypeQuery, Position: 2},
			},
		}
	case OutputPort:
		return Constraints{
			CheckDependencies:     true,
			RequiredCapability:    RoleOutputPort,
			ForbiddenCapabilities: RolesExcept(RoleOutputPort),
			Interface:             true,
		}
	case Adapter:
		return Constraints{
			IsolateFrom: []Name{Domain, Handler},
			ExemptRole:  RoleRepository,
		}
	}
	return Constraints{}
}
