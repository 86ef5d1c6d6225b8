package memory

import (
	"testing"

	"github.com/IlyushaZ/vinyl-store/pkg/database/databasetest"
)

func TestStoreContract(t *testing.T) {
	databasetest.Run(t, New())
}
