package notify

import (
	"context"
	"errors"
	"time"

	"limbobot/internal/audit"
	"limbobot/internal/registry"
	"limbobot/internal/transport"
	logx "limbobot/pkg/logx"
)

// Dispatcher resolves a recipient from the registry, sends the rendered
// inquiry through the chat transport, classifies the outcome and self-heals
// the registry when the recipient turns out to be permanently unreachable.
//
// It owns no retry loop: one inquiry, at most one send attempt.
type Dispatcher struct {
	reg     *registry.Registry
	adapter transport.Adapter
	trail   audit.Store // nil when the audit trail is disabled
	log     logx.Logger
}

func NewDispatcher(reg *registry.Registry, adapter transport.Adapter, trail audit.Store, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{reg: reg, adapter: adapter, trail: trail, log: log}
}

func (d *Dispatcher) Dispatch(ctx context.Context, rawUsername string, inq Inquiry) Result {
	start := time.Now()

	artist, ok := d.reg.FindByUsername(rawUsername)
	if !ok {
		d.log.Warn("inquiry for unknown artist", logx.String("username", rawUsername))
		res := Result{Status: StatusUnknown, Message: "Художник не найден в системе"}
		d.record(rawUsername, "", res, inq, start)
		return res
	}

	if !artist.Registered() {
		d.log.Warn("inquiry for unregistered artist",
			logx.String("username", artist.Username),
			logx.String("name", artist.Name),
		)
		res := Result{Status: StatusUnregistered, Message: "Художник ещё не зарегистрировался в боте"}
		d.record(artist.Username, "", res, inq, start)
		return res
	}

	text := renderInquiry(artist.Name, inq)
	err := d.adapter.SendText(ctx, artist.RecipientID, text)
	if err == nil {
		d.log.Info("inquiry delivered",
			logx.String("username", artist.Username),
			logx.String("work", inq.WorkTitle),
		)
		res := Result{Status: StatusDelivered, Message: "Уведомление доставлено художнику"}
		d.record(artist.Username, artist.RecipientID, res, inq, start)
		return res
	}

	res := Result{Status: StatusFailed, Detail: DetailTransient, Message: "Ошибка доставки уведомления"}
	var se *transport.SendError
	if errors.As(err, &se) && se.Permanent() {
		res.Detail = DetailPermanent
		if ierr := d.reg.Invalidate(artist.Username); ierr != nil {
			d.log.Warn("invalidate after permanent failure", logx.String("username", artist.Username), logx.Err(ierr))
		}
		d.log.Warn("recipient unreachable; registration invalidated",
			logx.String("username", artist.Username),
			logx.String("kind", string(se.Kind)),
			logx.Err(err),
		)
	} else {
		d.log.Warn("inquiry delivery failed",
			logx.String("username", artist.Username),
			logx.Err(err),
		)
	}
	d.record(artist.Username, artist.RecipientID, res, inq, start)
	return res
}

// record appends the dispatch outcome to the audit trail. Best-effort: it
// runs on its own short deadline so a canceled request can't lose the entry.
func (d *Dispatcher) record(username, recipientID string, res Result, inq Inquiry, start time.Time) {
	if d.trail == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := d.trail.Append(ctx, audit.Entry{
		At:          start,
		Username:    username,
		RecipientID: recipientID,
		Status:      string(res.Status),
		Detail:      string(res.Detail),
		WorkTitle:   inq.WorkTitle,
		TookMS:      time.Since(start).Milliseconds(),
	})
	if err != nil {
		d.log.Warn("audit append failed", logx.Err(err))
	}
}
