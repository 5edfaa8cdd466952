package release

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const rule = "=================================================="

// Banner renders the failure notice shown to the operator.
func Banner(err error) string {
	phase := "release"
	if pe, ok := err.(*PhaseError); ok {
		phase = string(pe.Phase) + " phase"
		err = pe.Err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, " BUILD FAILED: %s\n", phase)
	msg := err.Error()
	for _, line := range strings.Split(msg, "\n") {
		fmt.Fprintf(&b, " %s\n", line)
	}
	// wrapped messages already end with their cause
	if cause := errors.Cause(err); cause != err && !strings.HasSuffix(msg, cause.Error()) {
		fmt.Fprintf(&b, " cause: %s\n", cause)
	}
	fmt.Fprintf(&b, "%s\n", rule)
	return b.String()
}

// Summary renders the success notice listing the artifacts.
func Summary(m *Manifest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, " BUILD SUCCEEDED: %s %s\n", m.Name, m.Version)
	for _, a := range m.Artifacts {
		fmt.Fprintf(&b, " %-9s %s (%d bytes)\n", a.Kind, a.Name, a.Size)
		fmt.Fprintf(&b, "           %s\n", a.SRI)
	}
	fmt.Fprintf(&b, "%s\n", rule)
	return b.String()
}
