package ops

import (
	"context"
	"time"

	"github.com/edgenode/jsruntime/edgejs/apperr"
	"github.com/edgenode/jsruntime/edgejs/msg"
	"github.com/edgenode/jsruntime/edgejs/runtime"
)

// TimerStart schedules a one-shot delay and records its cancel function in
// the Runtime's timer table, grounded on
// original_source/src/ops/timers.rs's op_timer_start. On fire it pushes a
// TimerReady(canceled=false); a race with Clear is resolved by
// TimerTable.Fire, which suppresses the push if the row is already gone.
func TimerStart(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.TimerStart
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}

	id := p.ID
	stop := make(chan struct{})
	rt.Timers().Start(id, func() { close(stop) })
	go func() {
		t := time.NewTimer(time.Duration(p.Delay) * time.Millisecond)
		defer t.Stop()
		select {
		case <-t.C:
			if rt.Timers().Fire(id) {
				sendTimerReady(rt, id, false)
			}
		case <-stop:
		}
	}()

	return nil, nil
}

// TimerClear cancels a pending timer, grounded on op_timer_clear. Clearing
// an unknown or already-fired id is not an error.
func TimerClear(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.TimerClear
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}
	rt.Timers().Clear(p.ID)
	return nil, nil
}

func sendTimerReady(rt *runtime.Runtime, id uint32, canceled bool) {
	env, err := msg.NewRequest(0, false, msg.KindTimerReady, msg.TimerReady{ID: id, Canceled: canceled})
	if err != nil {
		rt.Logger().WithField("timer_id", id).WithField("error", err).Error("ops: build timer_ready")
		return
	}
	if err := rt.Push(env, nil); err != nil {
		rt.Logger().WithField("timer_id", id).WithField("error", err).Error("ops: push timer_ready")
	}
}
