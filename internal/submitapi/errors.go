package submitapi

import "errors"

// ErrUnknownInput is returned when a submission names a config/data/artifact
// id with no corresponding directory in the submitter's tree.
var ErrUnknownInput = errors.New("submitapi: unknown input id")

// ErrDisallowedEnvVar is returned when a submission sets an environment
// variable key the catalog entrypoint doesn't allow.
var ErrDisallowedEnvVar = errors.New("submitapi: environment variable not allowed by catalog")
