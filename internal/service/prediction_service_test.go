package service

import (
	"encoding/json"
	"testing"

	"lottoinsight/internal/lottery"
	"lottoinsight/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestPredictionCreate_NormalisesAndAnnounces(t *testing.T) {
	e := newTestEnv(t)
	e.setNow(day1)

	p, err := e.c.Prediction.Create(e.ctx, 7, &PredictionInput{
		LotteryCode: "Powerball",
		DrawDate:    "2026-03-11",
		DrawTime:    "22:59",
		NonViable:   lottery.NumberSet{Primary: []int{3, 1, 2, 3}, Secondary: []int{10}},
	})
	require.NoError(t, err)
	assert.Equal(t, "powerball", p.LotteryCode)
	assert.Equal(t, int64(200), p.PriceCents)
	assert.True(t, p.IsActive)
	assert.Equal(t, []int{1, 2, 3}, p.NonViable.Primary)
	assert.Equal(t, []int{10}, p.NonViable.Secondary)

	var msgs []model.OutboxMessage
	require.NoError(t, e.db.Find(&msgs).Error)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.EventPredictionPublished, msgs[0].EventType)
	assert.Equal(t, "lotto.notification", msgs[0].Topic)

	var ev model.NotificationEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Payload), &ev))
	assert.Equal(t, p.ID, ev.RefID)
	assert.Contains(t, ev.Message, "Powerball")
}

func TestPredictionCreate_InactiveIsSilent(t *testing.T) {
	e := newTestEnv(t)
	p, err := e.c.Prediction.Create(e.ctx, 7, &PredictionInput{
		LotteryCode: "fantasy5",
		DrawDate:    "2026-03-11",
		DrawTime:    "21:00",
		NonViable:   lotterySet([]int{5}),
		IsActive:    boolPtr(false),
	})
	require.NoError(t, err)
	assert.False(t, p.IsActive)
	assert.Equal(t, int64(0), e.count(&model.OutboxMessage{}, "1 = 1"))

	// activating announces once
	_, err = e.c.Prediction.SetActive(e.ctx, p.ID, true)
	require.NoError(t, err)
	_, err = e.c.Prediction.SetActive(e.ctx, p.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.count(&model.OutboxMessage{}, "1 = 1"))
}

func TestPredictionValidate(t *testing.T) {
	e := newTestEnv(t)
	tests := []struct {
		name  string
		in    PredictionInput
		field string
	}{
		{"unknown lottery", PredictionInput{LotteryCode: "euromillions", DrawDate: "2026-03-11", DrawTime: "20:00", NonViable: lotterySet([]int{1})}, "lottery_code"},
		{"bad date", PredictionInput{LotteryCode: "pick3", DrawDate: "11/03/2026", DrawTime: "20:00", NonViable: lotterySet([]int{1})}, "draw_date"},
		{"bad time", PredictionInput{LotteryCode: "pick3", DrawDate: "2026-03-11", DrawTime: "8pm", NonViable: lotterySet([]int{1})}, "draw_time"},
		{"primary out of range", PredictionInput{LotteryCode: "pick3", DrawDate: "2026-03-11", DrawTime: "20:00", NonViable: lotterySet([]int{10})}, "non_viable.primary"},
		{"secondary on single game", PredictionInput{LotteryCode: "pick3", DrawDate: "2026-03-11", DrawTime: "20:00", NonViable: lottery.NumberSet{Primary: []int{1}, Secondary: []int{1}}}, "non_viable.secondary"},
		{"secondary out of range", PredictionInput{LotteryCode: "cash4life", DrawDate: "2026-03-11", DrawTime: "20:00", NonViable: lottery.NumberSet{Primary: []int{1}, Secondary: []int{5}}}, "non_viable.secondary"},
		{"empty", PredictionInput{LotteryCode: "pick3", DrawDate: "2026-03-11", DrawTime: "20:00"}, "non_viable"},
		{"negative price", PredictionInput{LotteryCode: "pick3", DrawDate: "2026-03-11", DrawTime: "20:00", NonViable: lotterySet([]int{1}), PriceCents: func() *int64 { v := int64(-1); return &v }()}, "price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			_, err := e.c.Prediction.Create(e.ctx, 1, &in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
	assert.Equal(t, int64(0), e.count(&model.Prediction{}, "1 = 1"))
}

func TestPredictionUpdate_ClearsLegacyColumns(t *testing.T) {
	e := newTestEnv(t)
	p := e.prediction("fantasy5", []int{1}, 100)
	require.NoError(t, e.db.Model(&model.Prediction{}).Where("id = ?", p.ID).
		Update("viable_primary", `[2,3,4]`).Error)

	updated, err := e.c.Prediction.Update(e.ctx, p.ID, &PredictionInput{
		LotteryCode: "fantasy5",
		DrawDate:    "2026-03-12",
		DrawTime:    "21:30",
		NonViable:   lotterySet([]int{7, 8}),
		Notes:       "revised",
	})
	require.NoError(t, err)
	assert.Equal(t, []int{7, 8}, updated.NonViable.Primary)
	assert.Equal(t, "revised", updated.Notes)

	stored := e.reloadPrediction(p.ID)
	assert.True(t, stored.LegacyViable().Empty())
	assert.Equal(t, int64(100), stored.PriceCents)

	_, err = e.c.Prediction.Update(e.ctx, 999, &PredictionInput{LotteryCode: "fantasy5", DrawDate: "2026-03-12", DrawTime: "21:30", NonViable: lotterySet([]int{1})})
	assert.ErrorIs(t, err, ErrPredictionNotFound)
}

func TestPredictionAccuracyDeleteList(t *testing.T) {
	e := newTestEnv(t)
	a := e.prediction("pick4", []int{1}, 100)
	b := e.prediction("pick4", []int{2}, 100)
	e.prediction("pick3", []int{3}, 100)

	_, err := e.c.Prediction.SetAccuracy(e.ctx, a.ID, 101)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	got, err := e.c.Prediction.SetAccuracy(e.ctx, a.ID, 62.5)
	require.NoError(t, err)
	require.NotNil(t, got.Accuracy)
	assert.Equal(t, 62.5, *got.Accuracy)

	_, err = e.c.Prediction.SetActive(e.ctx, b.ID, false)
	require.NoError(t, err)

	list, total, err := e.c.Prediction.List(e.ctx, "PICK4", false, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	_, total, err = e.c.Prediction.List(e.ctx, "pick4", true, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = e.c.Prediction.List(e.ctx, "", true, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	require.NoError(t, e.c.Prediction.Delete(e.ctx, a.ID))
	assert.ErrorIs(t, e.c.Prediction.Delete(e.ctx, a.ID), ErrPredictionNotFound)
	_, err = e.c.Prediction.Get(e.ctx, a.ID)
	assert.ErrorIs(t, err, ErrPredictionNotFound)
}

func TestResultRecord(t *testing.T) {
	e := newTestEnv(t)

	view, err := e.c.Result.Record(e.ctx, 1, &ResultInput{
		LotteryCode: "megamillions",
		DrawDate:    "2026-03-10",
		Winning:     lottery.NumberSet{Primary: []int{50, 4, 12, 33, 7}, Secondary: []int{9}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 7, 12, 33, 50}, view.Winning.Primary)

	_, err = e.c.Result.Record(e.ctx, 1, &ResultInput{
		LotteryCode: "megamillions",
		DrawDate:    "2026-03-10",
		Winning:     lottery.NumberSet{Primary: []int{1, 2, 3, 4, 5}, Secondary: []int{1}},
	})
	assert.ErrorIs(t, err, ErrResultExists)

	digits, err := e.c.Result.Record(e.ctx, 1, &ResultInput{
		LotteryCode: "pick3",
		DrawDate:    "2026-03-10",
		Winning:     lottery.NumberSet{Primary: []int{7, 7, 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{7, 7, 1}, digits.Winning.Primary)

	_, err = e.c.Result.Record(e.ctx, 1, &ResultInput{
		LotteryCode: "fantasy5",
		DrawDate:    "2026-03-10",
		Winning:     lottery.NumberSet{Primary: []int{1, 2, 3}},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "winning.primary")

	list, total, err := e.c.Result.List(e.ctx, "megamillions", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, []int{9}, list[0].Winning.Secondary)

	assert.Equal(t, int64(2), e.count(&model.OutboxMessage{}, "event_type = ?", model.EventResultPublished))
}

func TestOutboxServiceStatsAndRequeue(t *testing.T) {
	e := newTestEnv(t)
	e.prediction("pick3", []int{1}, 100)
	e.prediction("pick3", []int{2}, 100)
	require.NoError(t, e.db.Model(&model.OutboxMessage{}).Where("id = ?", 1).
		Updates(map[string]interface{}{"status": model.OutboxStatusFailed, "retry_count": 5}).Error)

	stats, err := e.c.Outbox.Stats(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Failed)

	n, err := e.c.Outbox.Requeue(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stats, err = e.c.Outbox.Stats(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(0), stats.Failed)
}
