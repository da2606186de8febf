// Package catalog loads the Submit API's application/version/entrypoint
// catalog: a YAML document naming which (application, version, entrypoint)
// triples can be submitted, the container image and command line each
// resolves to, and the environment-variable keys a submission is allowed to
// override (§4.5, §9 "Dynamic submission shape").
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Entrypoint is one runnable command within an application version.
type Entrypoint struct {
	// Cmd is the command line, unexpanded, run by the worker.
	Cmd []string `yaml:"cmd" json:"cmd"`

	// AllowedEnv lists the environment-variable keys a submission may set.
	// A key outside this list is rejected at the HTTP boundary rather than
	// silently dropped or passed through.
	AllowedEnv []string `yaml:"allowed_env" json:"allowed_env"`

	// Hardware carries the entrypoint's default resource demands; a
	// submission may not loosen them, only omit and inherit.
	Hardware EntrypointHardware `yaml:"hardware" json:"hardware"`
}

// EntrypointHardware mirrors models.HardwareSpec for the catalog's purposes.
type EntrypointHardware struct {
	CPUCores int     `yaml:"cpu_cores" json:"cpu_cores"`
	Memory   float64 `yaml:"memory" json:"memory"`
	GPUMem   float64 `yaml:"gpu_mem,omitempty" json:"gpu_mem,omitempty"`
	GPUModel string  `yaml:"gpu_model,omitempty" json:"gpu_model,omitempty"`
	GPUArchi string  `yaml:"gpu_archi,omitempty" json:"gpu_archi,omitempty"`
}

// Version is one released version of an application: an image plus the
// entrypoints runnable against it.
type Version struct {
	ImageURL    string                `yaml:"image_url" json:"image_url"`
	Entrypoints map[string]Entrypoint `yaml:"entrypoints" json:"entrypoints"`
}

// Application groups the versions available for one named application.
type Application struct {
	Versions map[string]Version `yaml:"versions" json:"versions"`
}

// Catalog is the full set of applications a submission may reference.
type Catalog struct {
	Applications map[string]Application `yaml:"applications" json:"applications"`
}

// Load reads and parses a catalog from a YAML file on disk. The catalog is
// loaded once at startup; there is no hot-reload, matching the teacher's
// LoadJobSpec's one-shot-read-at-construction pattern.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return &c, nil
}

// ErrUnknownTriple is returned when the (application, version, entrypoint)
// triple a submission names isn't in the catalog.
var ErrUnknownTriple = fmt.Errorf("catalog: unknown application/version/entrypoint")

// Resolve looks up the entrypoint for a given triple, returning its image
// URL and definition together since both are needed to materialize a job.
func (c *Catalog) Resolve(application, version, entrypoint string) (imageURL string, ep *Entrypoint, err error) {
	app, ok := c.Applications[application]
	if !ok {
		return "", nil, ErrUnknownTriple
	}
	v, ok := app.Versions[version]
	if !ok {
		return "", nil, ErrUnknownTriple
	}
	e, ok := v.Entrypoints[entrypoint]
	if !ok {
		return "", nil, ErrUnknownTriple
	}
	return v.ImageURL, &e, nil
}

// ValidateEnv reports the first key in envVars not present in the
// entrypoint's AllowedEnv, or "" if every key is allowed.
func (e *Entrypoint) ValidateEnv(envVars map[string]string) string {
	allowed := make(map[string]struct{}, len(e.AllowedEnv))
	for _, k := range e.AllowedEnv {
		allowed[k] = struct{}{}
	}
	for k := range envVars {
		if _, ok := allowed[k]; !ok {
			return k
		}
	}
	return ""
}
