package transcript

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/medprev-labs/medy-bot/internal/dialog"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func expectAppendMessage(mock sqlmock.Sqlmock, conversationID, role, content, kind string) {
	mock.ExpectExec("INSERT INTO conversation_messages").
		WithArgs(sqlmock.AnyArg(), conversationID, role, content, kind, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE conversations SET").
		WithArgs(sqlmock.AnyArg(), conversationID).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestStore_RecordInboundCreatesConversation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id FROM conversations").
		WithArgs("conv-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO conversations").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectAppendMessage(mock, "conv-1", RoleUser, "oi", "text")

	err := store.RecordInbound(context.Background(), dialog.TurnInput{
		ConversationID: "conv-1",
		UserID:         "u-1",
		UserName:       "Rafaela",
		PhoneNumber:    "+5541999990000",
		Text:           "oi",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RecordInboundImageOnlyMessage(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id FROM conversations").
		WithArgs("conv-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	expectAppendMessage(mock, "conv-1", RoleUser, "[imagem]", "image")

	err := store.RecordInbound(context.Background(), dialog.TurnInput{
		ConversationID: "conv-1",
		UserID:         "u-1",
		Attachments:    []dialog.Attachment{{ContentType: "image/jpeg", ContentURL: "https://cdn.example/a.jpg"}},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RecordOutboundTextAppends(t *testing.T) {
	store, mock := newMockStore(t)

	expectAppendMessage(mock, "conv-1", RoleBot, "olá", "text")

	err := store.RecordOutbound(context.Background(), "conv-1", dialog.Text("olá"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RecordOutboundHandoffUpdatesStatus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE conversations SET status").
		WithArgs("handoff", sqlmock.AnyArg(), "conv-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.RecordOutbound(context.Background(), "conv-1", dialog.OutboundActivity{
		Kind: dialog.ActivityHandoff,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_EnsureConversationReturnsExistingID(t *testing.T) {
	store, mock := newMockStore(t)
	existing := uuid.New()

	mock.ExpectQuery("SELECT id FROM conversations").
		WithArgs("conv-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(existing))

	id, err := store.EnsureConversation(context.Background(), "conv-1", "", "")
	require.NoError(t, err)
	require.Equal(t, existing, id)
}

func TestStore_GetConversation(t *testing.T) {
	store, mock := newMockStore(t)
	rowID := uuid.New()
	started := time.Now().Add(-time.Hour)
	last := time.Now()

	mock.ExpectQuery("SELECT id, conversation_id, phone").
		WithArgs("conv-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "conversation_id", "phone", "contact_name", "status",
			"message_count", "user_message_count", "bot_message_count",
			"started_at", "last_message_at", "ended_at",
		}).AddRow(rowID, "conv-1", "+5541999990000", "Rafaela", "active", 4, 2, 2, started, last, nil))

	conv, err := store.GetConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	require.NotNil(t, conv)
	require.Equal(t, rowID, conv.ID)
	require.Equal(t, "active", conv.Status)
	require.NotNil(t, conv.LastMessageAt)
	require.Nil(t, conv.EndedAt)
}

func TestStore_GetConversationNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, conversation_id, phone").
		WithArgs("conv-404").
		WillReturnError(sql.ErrNoRows)

	conv, err := store.GetConversation(context.Background(), "conv-404")
	require.NoError(t, err)
	require.Nil(t, conv)
}

func TestStore_NilStoreIsSafe(t *testing.T) {
	var store *Store

	ctx := context.Background()
	require.NoError(t, store.RecordInbound(ctx, dialog.TurnInput{ConversationID: "conv-1", UserID: "u-1"}))
	require.NoError(t, store.RecordOutbound(ctx, "conv-1", dialog.Text("olá")))
	require.NoError(t, store.EndConversation(ctx, "conv-1"))
}
