package teamintegrationtests

import (
	"os"
	"testing"

	"github.com/Black-And-White-Club/segment-ctf/integration_tests/testutils"
)

func TestMain(m *testing.M) {
	code := m.Run()
	testutils.Teardown()
	os.Exit(code)
}
