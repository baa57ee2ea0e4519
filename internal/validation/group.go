package validation

const (
	MaxGroupNameLength = 100
	MaxGroupTags       = 10
	MaxTagLength       = 32
)

// GroupInput is the sanitized name and tags of a new group.
type GroupInput struct {
	Name string   `validate:"required,max=100"`
	Tags []string `validate:"max=10,dive,required,max=32"`
}

// NormalizeGroupInput sanitizes name and tags then validates them.
// Tags keep their submitted case and order; blank tags are dropped.
func NormalizeGroupInput(name string, tags []string) (GroupInput, error) {
	in := GroupInput{
		Name: SanitizeText(name),
		Tags: make([]string, 0, len(tags)),
	}

	for _, tag := range tags {
		if t := SanitizeText(tag); t != "" {
			in.Tags = append(in.Tags, t)
		}
	}

	if err := Struct(in); err != nil {
		return GroupInput{}, err
	}
	return in, nil
}
