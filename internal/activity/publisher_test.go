package activity_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"loomworks/internal/activity"
	"loomworks/internal/activity/mocks"
	"loomworks/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEmitAssignsIdentityAndTimestamp(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	var appended activity.Entry
	store.EXPECT().
		Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry activity.Entry) error {
			appended = entry
			return nil
		})

	publisher := activity.NewPublisher(store, discardLogger())
	err := publisher.Emit(context.Background(), activity.Entry{
		UserID: uuid.New(),
		Action: activity.ActionCreated,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, appended.ID)
	assert.False(t, appended.CreatedAt.IsZero())
}

func TestEmitStoreFailureSurfaces(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	broker := mocks.NewMockBroker(ctrl)

	store.EXPECT().Append(gomock.Any(), gomock.Any()).Return(fmt.Errorf("disk full"))
	// The broker must not see an entry the store refused.

	publisher := activity.NewPublisher(store, discardLogger(), activity.WithBroker(broker))
	err := publisher.Emit(context.Background(), activity.Entry{Action: activity.ActionUpdated})
	assert.ErrorContains(t, err, "disk full")
}

func TestEmitBrokerFailureIsSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	broker := mocks.NewMockBroker(ctrl)

	store.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	broker.EXPECT().
		Publish(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("brokers unreachable"))

	publisher := activity.NewPublisher(store, discardLogger(), activity.WithBroker(broker))
	err := publisher.Emit(context.Background(), activity.Entry{
		UserID:     uuid.New(),
		Action:     activity.ActionApproved,
		EntityType: domain.TypeEmployee,
	})
	assert.NoError(t, err, "the store append is the durable write")
}

func TestEmitMirrorsToBroker(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	broker := mocks.NewMockBroker(ctrl)
	userID := uuid.New()

	store.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	broker.EXPECT().
		Publish(gomock.Any(), userID.String(), gomock.Any()).
		Return(nil)

	publisher := activity.NewPublisher(store, discardLogger(), activity.WithBroker(broker))
	err := publisher.Emit(context.Background(), activity.Entry{
		UserID: userID,
		Action: activity.ActionSubmitted,
	})
	assert.NoError(t, err)
}

func TestInMemoryStoreOrdering(t *testing.T) {
	store := activity.NewInMemoryStore()
	ctx := context.Background()
	userA := uuid.New()
	userB := uuid.New()

	publisher := activity.NewPublisher(store, discardLogger())
	for i, userID := range []uuid.UUID{userA, userB, userA} {
		require.NoError(t, publisher.Emit(ctx, activity.Entry{
			UserID:  userID,
			Action:  activity.ActionCreated,
			Details: fmt.Sprintf("entry %d", i),
		}))
	}

	t.Run("Recent is newest first and bounded", func(t *testing.T) {
		entries, err := publisher.Recent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "entry 2", entries[0].Details)
		assert.Equal(t, "entry 1", entries[1].Details)
	})

	t.Run("ByUser filters to one user", func(t *testing.T) {
		entries, err := publisher.ByUser(ctx, userA, 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		for _, e := range entries {
			assert.Equal(t, userA, e.UserID)
		}
	})
}
