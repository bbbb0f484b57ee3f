package common_test

import (
	"context"
	"testing"

	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestUpdateMessage_LogsEditFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	// Сообщение callback недоступно (слишком старое), редактировать нечего
	hc := &common.HandlerContext{
		Ctx:        context.Background(),
		Handler:    &callbacktypes.Handler{Logger: zap.New(core)},
		TelegramID: 42,
	}

	hc.UpdateMessage("abort request", "✖️ Заявка не отправлена.", nil)

	entries := logs.FilterMessage("Failed to update message").All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "abort request", fields["operation"])
	assert.Equal(t, int64(42), fields["telegram_id"])
	assert.Equal(t, common.ErrNoMessage.Error(), fields["error"])
}
