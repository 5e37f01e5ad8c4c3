package audit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"gochopp/internal/pkg/audit"
)

func TestActorFrom(t *testing.T) {
	assert.Equal(t, audit.SystemActor, audit.ActorFrom(context.Background()))
	assert.Equal(t, audit.SystemActor, audit.ActorFrom(audit.WithActor(context.Background(), "")))
	assert.Equal(t, "user-42", audit.ActorFrom(audit.WithActor(context.Background(), "user-42")))
}
