package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/eventify-org/server/internal/domain/registrations"
)

func TestPrintDrift(t *testing.T) {
	t.Run("no drift", func(t *testing.T) {
		buf := new(bytes.Buffer)
		printDrift(buf, nil, false)
		if !strings.Contains(buf.String(), "No drift found") {
			t.Errorf("unexpected output:\n%s", buf.String())
		}
	})

	t.Run("report only", func(t *testing.T) {
		buf := new(bytes.Buffer)
		printDrift(buf, []registrations.Drift{{
			EventID:     "01J9Z3K7C4T1M8Q2X5W6V0B9NA",
			StoredCount: 3,
			ActualCount: 2,
			Extra:       []string{"01J9Z3K7C4T1M8Q2X5W6V0B9NB"},
		}}, false)

		output := buf.String()
		for _, expected := range []string{"stored 3, actual 2", "extra attendees", "rerun with --fix"} {
			if !strings.Contains(output, expected) {
				t.Errorf("expected output to contain %q, got:\n%s", expected, output)
			}
		}
	})

	t.Run("fixed", func(t *testing.T) {
		buf := new(bytes.Buffer)
		printDrift(buf, []registrations.Drift{{
			EventID:     "01J9Z3K7C4T1M8Q2X5W6V0B9NA",
			StoredCount: 1,
			ActualCount: 2,
			Missing:     []string{"01J9Z3K7C4T1M8Q2X5W6V0B9NC"},
			Fixed:       true,
		}}, true)

		output := buf.String()
		if !strings.Contains(output, "fixed") || strings.Contains(output, "rerun") {
			t.Errorf("unexpected output:\n%s", output)
		}
	})
}
