package submitapi

import (
	"fmt"
	"os"
	"path/filepath"
)

// inputKinds names the three logical input-id buckets a submission may
// reference, matching the user-scoped tree layout under UserDataRootPath.
const (
	inputKindConfig   = "config"
	inputKindData     = "data"
	inputKindArtifact = "artifact"
)

// BuildFilesDown enumerates the files under a submitter's config/data/
// artifact ids and returns the `files_down` manifest: container-local path
// -> source object-store URI (§4.5 step 2). Source URIs are local paths
// joined under userRoot, so they are absolute only when userRoot is.
func BuildFilesDown(userRoot, submitterName, configID string, dataIDs, artifactIDs []string) (map[string]string, error) {
	manifest := make(map[string]string)

	if configID != "" {
		if err := addInputDir(manifest, userRoot, submitterName, inputKindConfig, configID); err != nil {
			return nil, err
		}
	}
	for _, id := range dataIDs {
		if err := addInputDir(manifest, userRoot, submitterName, inputKindData, id); err != nil {
			return nil, err
		}
	}
	for _, id := range artifactIDs {
		if err := addInputDir(manifest, userRoot, submitterName, inputKindArtifact, id); err != nil {
			return nil, err
		}
	}
	return manifest, nil
}

// addInputDir walks userRoot/submitterName/kind/id and adds every regular
// file it finds, keyed by the container-local path the worker should
// materialize it at.
func addInputDir(manifest map[string]string, userRoot, submitterName, kind, id string) error {
	srcDir := filepath.Join(userRoot, submitterName, kind, id)
	info, err := os.Stat(srcDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s/%s not found", ErrUnknownInput, kind, id)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s/%s is not a directory", ErrUnknownInput, kind, id)
	}

	return filepath.Walk(srcDir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		containerPath := filepath.Join("/job/input", kind, id, rel)
		manifest[containerPath] = path
		return nil
	})
}

// BuildPathsUpload computes the per-job upload destinations for output,
// log, and artifact files under a user-scoped output root (§4.5 step 3).
func BuildPathsUpload(userRoot, submitterName, jobID string) map[string]string {
	base := filepath.Join(userRoot, submitterName, "jobs", jobID)
	return map[string]string{
		"output":   filepath.Join(base, "output"),
		"log":      filepath.Join(base, "log"),
		"artifact": filepath.Join(base, "artifact"),
	}
}
