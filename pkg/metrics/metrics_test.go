package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNoApplication(t *testing.T) {
	ctx := NewContext(context.Background(), nil)

	_, ok := appFromContext(ctx)
	assert.False(t, ok)

	RecordEvent(ctx, "event", map[string]interface{}{"key": "value"})
	RecordCount(ctx, "count", 1)
	RecordDuration(ctx, "duration", time.Second)

	txnCtx, end := StartTransaction(ctx, "txn")
	assert.Equal(t, ctx, txnCtx)
	end()

	tracer := TraceMethodCall(ctx, "metrics", "Test")
	assert.Nil(t, tracer)
	tracer.AddAttribute("key", "value")
	tracer.OnError(errors.New("failure"))
	tracer.End()
}

func TestForwardedMessage(t *testing.T) {
	entry := logrus.NewEntry(logrus.StandardLogger())
	entry.Message = "hello"
	assert.Equal(t, "hello", forwardedMessage(entry))

	entry = entry.WithField("program", "swap").WithError(errors.New("boom"))
	entry.Message = "failed"
	assert.Equal(t, `message="failed", error="boom", data={"program":"swap"}`, forwardedMessage(entry))
}
