package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/foodie/internal/common"
	"github.com/dmitrijs2005/foodie/internal/logging"
	"github.com/dmitrijs2005/foodie/internal/server/broker"
	"github.com/dmitrijs2005/foodie/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const historyPath = "users/" + aliceID + "/history"

type failingBroker struct{ *broker.Hub }

func (failingBroker) Publish(context.Context, models.Document) error { return errBoom }

func newDocumentService(t *testing.T, b broker.Broker) (*DocumentService, *fakeDocumentsRepo) {
	t.Helper()
	db, _ := newSQLMockDB(t)
	docs := newFakeDocumentsRepo()
	return NewDocumentService(db, &fakeRepoManager{d: docs}, b, logging.NewNop()), docs
}

func TestWrite_StoresAndPublishes(t *testing.T) {
	hub := broker.NewHub()
	s, _ := newDocumentService(t, hub)
	sub := hub.Subscribe(historyPath)
	defer sub.Close()

	doc, err := s.Write(context.Background(), aliceID, historyPath, json.RawMessage(`[1]`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Version)

	doc, err = s.Write(context.Background(), aliceID, historyPath, json.RawMessage(`[1,2]`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), doc.Version)

	assert.Equal(t, int64(1), (<-sub.C).Version)
	got := <-sub.C
	assert.Equal(t, int64(2), got.Version)
	assert.JSONEq(t, `[1,2]`, string(got.Body))
}

func TestWrite_Rejects(t *testing.T) {
	s, docs := newDocumentService(t, broker.NewHub())

	tests := []struct {
		name    string
		userID  string
		path    string
		body    string
		wantErr error
	}{
		{name: "other user", userID: "someone-else", path: historyPath, body: `[]`, wantErr: common.ErrorForbidden},
		{name: "bad path", userID: aliceID, path: "history", body: `[]`, wantErr: common.ErrValidation},
		{name: "bad json", userID: aliceID, path: historyPath, body: `{`, wantErr: common.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Write(context.Background(), tt.userID, tt.path, json.RawMessage(tt.body))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, docs.docs)
}

func TestWrite_PublishFailureKeepsWrite(t *testing.T) {
	s, docs := newDocumentService(t, failingBroker{broker.NewHub()})

	doc, err := s.Write(context.Background(), aliceID, historyPath, json.RawMessage(`[]`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Version)
	assert.Contains(t, docs.docs, historyPath)
}

func TestWrite_StorageError(t *testing.T) {
	s, docs := newDocumentService(t, broker.NewHub())
	docs.err = errBoom

	_, err := s.Write(context.Background(), aliceID, historyPath, json.RawMessage(`[]`))
	assert.ErrorIs(t, err, errBoom)
}

func TestGet(t *testing.T) {
	s, _ := newDocumentService(t, broker.NewHub())

	_, err := s.Get(context.Background(), aliceID, historyPath)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.Write(context.Background(), aliceID, historyPath, json.RawMessage(`[]`))
	require.NoError(t, err)

	doc, err := s.Get(context.Background(), aliceID, historyPath)
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Version)

	_, err = s.Get(context.Background(), "intruder", historyPath)
	assert.ErrorIs(t, err, common.ErrorForbidden)
}

func TestSubscribe_CurrentThenUpdates(t *testing.T) {
	hub := broker.NewHub()
	s, _ := newDocumentService(t, hub)

	_, err := s.Write(context.Background(), aliceID, historyPath, json.RawMessage(`["a"]`))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan models.Document, 4)
	done := make(chan error, 1)
	go func() {
		done <- s.Subscribe(ctx, aliceID, historyPath, func(d models.Document) error {
			got <- d
			return nil
		})
	}()

	first := <-got
	assert.Equal(t, int64(1), first.Version)

	// stale versions are skipped
	require.NoError(t, hub.Publish(context.Background(), first))

	_, err = s.Write(context.Background(), aliceID, historyPath, json.RawMessage(`["a","b"]`))
	require.NoError(t, err)

	second := <-got
	assert.Equal(t, int64(2), second.Version)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Subscribe did not return after cancel")
	}
	assert.Empty(t, got)
	assert.Equal(t, 0, hub.Subscribers())
}

func TestSubscribe_SendErrorEnds(t *testing.T) {
	s, _ := newDocumentService(t, broker.NewHub())
	_, err := s.Write(context.Background(), aliceID, historyPath, json.RawMessage(`[]`))
	require.NoError(t, err)

	stop := errors.New("client gone")
	err = s.Subscribe(context.Background(), aliceID, historyPath, func(models.Document) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestSubscribe_Forbidden(t *testing.T) {
	s, _ := newDocumentService(t, broker.NewHub())

	err := s.Subscribe(context.Background(), "intruder", historyPath, func(models.Document) error { return nil })
	assert.ErrorIs(t, err, common.ErrorForbidden)
}

func TestSubscribe_MissingDocumentStartsWithPlaceholder(t *testing.T) {
	s, _ := newDocumentService(t, broker.NewHub())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan models.Document, 2)
	go func() {
		_ = s.Subscribe(ctx, aliceID, historyPath, func(d models.Document) error {
			got <- d
			return nil
		})
	}()

	first := <-got
	assert.Equal(t, int64(0), first.Version)
	assert.Empty(t, first.Body)

	_, err := s.Write(context.Background(), aliceID, historyPath, json.RawMessage(`[]`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), (<-got).Version)
}
