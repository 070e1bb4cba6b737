package common

import (
	"net/url"
	"path"
)

// Backend paths, relative to the API base url. Trailing slashes are part of
// the contract.
const (
	PathProjects                = "api/projects/"
	PathInitialGenerationCreate = "api/initial_generator/generate/"
	PathGenerator               = "api/generator/"
	PathGeneratorContinue       = "api/generator/continue/"
	PathGeneratorDeleteLast     = "api/generator/delete-last/"
	PathGeneratorAssemble       = "api/generator/assemble/"
)

func ProjectPath(id string) string {
	return path.Join(PathProjects, url.PathEscape(id)) + "/"
}

func ProjectSuggestPath(id string) string {
	return path.Join(PathProjects, url.PathEscape(id), "suggest-continuations") + "/"
}

func InitialGenerationStatusPath(id string) string {
	return path.Join("api/initial_generator", url.PathEscape(id), "check-status") + "/"
}
