package dto

type ManagerDetail struct {
	Identifier  string
	DisplayName string
	Info        map[string]string
}

type ResolveInput struct {
	Ref    string
	Traits []string
	Access string
}

// ResolveOutput carries resolved trait properties with values rendered
// as display strings.
type ResolveOutput struct {
	Ref    string
	Traits map[string]map[string]string
}

type ExistsOutput struct {
	Ref    string
	Exists bool
}
