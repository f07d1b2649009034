package util

import gonanoid "github.com/matoous/go-nanoid/v2"

const artifactSuffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// ArtifactSuffix returns the short random suffix appended to artifact keys
// so repeated exports of the same project and format never collide.
func ArtifactSuffix() string {
	id, err := gonanoid.Generate(artifactSuffixAlphabet, 8)
	if err != nil {
		// gonanoid only fails when the OS entropy source does; at that point
		// a fixed suffix is the least of the process's problems.
		return "00000000"
	}
	return id
}
