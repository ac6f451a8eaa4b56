package memory

import (
	"testing"

	"github.com/loopforge/conveyor/pkg/ports"
)

func TestStoreContract(t *testing.T) {
	ports.RunRunStoreContract(t, NewStore())
}
