package research

import (
	"io"
	"os"
	"testing"

	"github.com/MartinJHallberg/study-and-work-counselor/internal/logging"
)

// TestMain silences logging so test output only shows test results
func TestMain(m *testing.M) {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})

	os.Exit(m.Run())
}
