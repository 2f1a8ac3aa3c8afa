package pushstream

import (
	"encoding/json"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/touchline/internal/domain/event"
	"github.com/riskibarqy/touchline/internal/domain/matchstate"
	"github.com/riskibarqy/touchline/internal/domain/period"
	"github.com/riskibarqy/touchline/internal/usecase"
)

// frame is one server message: {"type": "...", "data": {...}}.
type frame struct {
	Type usecase.StreamMessageType `json:"type"`
	Data json.RawMessage           `json:"data"`
}

type deletedData struct {
	ID string `json:"id"`
}

func decodeFrame(raw []byte) (usecase.StreamMessage, error) {
	var f frame
	if err := sonic.Unmarshal(raw, &f); err != nil {
		return usecase.StreamMessage{}, crerr.Wrap(err, "decode frame")
	}

	msg := usecase.StreamMessage{Type: f.Type}
	var err error
	switch f.Type {
	case usecase.StreamSnapshot:
		msg.Snapshot = &usecase.StreamSnapshotPayload{}
		err = sonic.Unmarshal(f.Data, msg.Snapshot)
	case usecase.StreamEventCreated:
		msg.Event = &event.Event{}
		err = sonic.Unmarshal(f.Data, msg.Event)
	case usecase.StreamEventDeleted:
		var d deletedData
		err = sonic.Unmarshal(f.Data, &d)
		msg.EventID = d.ID
	case usecase.StreamPeriodStarted, usecase.StreamPeriodEnded:
		msg.Period = &period.Period{}
		err = sonic.Unmarshal(f.Data, msg.Period)
	case usecase.StreamStateChanged:
		msg.State = &matchstate.State{}
		err = sonic.Unmarshal(f.Data, msg.State)
	default:
		return usecase.StreamMessage{}, crerr.Newf("unknown frame type %q", f.Type)
	}
	if err != nil {
		return usecase.StreamMessage{}, crerr.Wrapf(err, "decode %s frame", f.Type)
	}
	return msg, nil
}
