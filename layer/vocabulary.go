package layer

// Role is an architectural capability role. Roles are mapped to the concrete,
// opaque capability tags of the analysed codebase by a Vocabulary.
type Role string

const (
	RoleRepository         Role = "repository"
	RoleDomainService      Role = "domain_service"
	RoleValueObject        Role = "value_object"
	RoleIdentity           Role = "identity"
	RoleFactory            Role = "factory"
	RoleUseCase            Role = "use_case"
	RoleOutputPort         Role = "output_port"
	RoleAdapter            Role = "adapter"
	RoleApplicationService Role = "application_service"
)

// TypeKey names one of the base types rules refer to.
type TypeKey string

const (
	TypeCommand        TypeKey = "command"
	TypeQuery          TypeKey = "query"
	TypeCommandHandler TypeKey = "command_handler"
	TypeQueryHandler   TypeKey = "query_handler"
)

// Vocabulary maps roles to tags and type keys to qualified type names.
type Vocabulary struct {
	Tags          map[Role]string    `yaml:"tags" json:"tags"`
	Types         map[TypeKey]string `yaml:"types" json:"types"`
	FactoryResult string             `yaml:"factory_result" json:"factory_result"`
	FactoryMethod string             `yaml:"factory_method" json:"factory_method"`
}

// DefaultVocabulary returns the names used by the reference shared kernel.
func DefaultVocabulary() Vocabulary {
	const kernel = "com.emedina.sharedkernel."
	return Vocabulary{
		Tags: map[Role]string{
			RoleRepository:         kernel + "domain.repository.annotation.Repository",
			RoleDomainService:      kernel + "domain.service.annotation.DomainService",
			RoleValueObject:        kernel + "domain.model.annotation.ValueObject",
			RoleIdentity:           kernel + "domain.identity.annotation.Identity",
			RoleFactory:            kernel + "domain.factory.annotation.Factory",
			RoleUseCase:            kernel + "application.annotation.UseCase",
			RoleOutputPort:         kernel + "application.annotation.OutputPort",
			RoleAdapter:            kernel + "application.annotation.Adapter",
			RoleApplicationService: kernel + "application.annotation.ApplicationService",
		},
		Types: map[TypeKey]string{
			TypeCommand:        kernel + "command.Command",
			TypeQuery:          kernel + "query.Query",
			TypeCommandHandler: kernel + "command.core.CommandHandler",
			TypeQueryHandler:   kernel + "query.core.QueryHandler",
		},
		FactoryResult: "io.vavr.control.Validation",
		FactoryMethod: "validateThenCreate",
	}
}

// Tag returns the tag for role.
func (v Vocabulary) Tag(role Role) string {
	return v.Tags[role]
}

// TagsOf resolves several roles at once.
func (v Vocabulary) TagsOf(roles []Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, v.Tags[r])
	}
	return out
}

// Type returns the qualified type name for key.
func (v Vocabulary) Type(key TypeKey) string {
	return v.Types[key]
}

// Merge overlays the non-empty entries of other onto a copy of v.
func (v Vocabulary) Merge(other Vocabulary) Vocabulary {
	out := Vocabulary{
		Tags:          make(map[Role]string, len(v.Tags)),
		Types:         make(map[TypeKey]string, len(v.Types)),
		FactoryResult: v.FactoryResult,
		FactoryMethod: v.FactoryMethod,
	}
	for k, val := range v.Tags {
		out.Tags[k] = val
	}
	for k, val := range v.Types {
		out.Types[k] = val
	}
	for k, val := range other.Tags {
		if val != "" {
			out.Tags[k] = val
		}
	}
	for k, val := range other.Types {
		if val != "" {
			out.Types[k] = val
		}
	}
	if other.FactoryResult != "" {
		out.FactoryResult = other.FactoryResult
	}
	if other.FactoryMethod != "" {
		out.FactoryMethod = other.FactoryMethod
	}
	return out
}
