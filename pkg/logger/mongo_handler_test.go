package logger

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type recordingWriter struct {
	mu   sync.Mutex
	docs []LogDocument
}

func (w *recordingWriter) InsertMany(_ context.Context, docs []interface{}, _ ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, d := range docs {
		w.docs = append(w.docs, d.(LogDocument))
	}
	return &mongo.InsertManyResult{}, nil
}

func TestMongoHandlerFlushesOnClose(t *testing.T) {
	out := &recordingWriter{}
	h := newMongoHandler(out, slog.LevelInfo)

	log := slog.New(h).With("request_id", "req-1").WithGroup("order")
	log.Info("order created", "id", "o-1")
	log.Debug("dropped below level")
	h.Close()
	h.Close()

	require.Len(t, out.docs, 1)
	doc := out.docs[0]
	assert.Equal(t, "order created", doc.Msg)
	assert.Equal(t, "INFO", doc.Level)
	assert.Equal(t, "req-1", doc.RequestID)
	assert.Equal(t, "o-1", doc.Attrs["order.id"])
}

func TestMultiHandlerFansOut(t *testing.T) {
	a, b := &recordingWriter{}, &recordingWriter{}
	ha, hb := newMongoHandler(a, slog.LevelInfo), newMongoHandler(b, slog.LevelWarn)

	log := slog.New(NewMultiHandler(ha, hb))
	log.Info("info line")
	log.Warn("warn line")
	ha.Close()
	hb.Close()

	assert.Len(t, a.docs, 2)
	require.Len(t, b.docs, 1)
	assert.Equal(t, "warn line", b.docs[0].Msg)
}
