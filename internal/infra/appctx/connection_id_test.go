package appctx

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestConnectionID(t *testing.T) {
	if _, ok := ConnectionID(context.Background()); ok {
		t.Error("empty context must not carry a connection id")
	}

	id := uuid.New()
	got, ok := ConnectionID(WithConnectionID(context.Background(), id))
	if !ok || got != id {
		t.Errorf("ConnectionID = %v, %v", got, ok)
	}
}
