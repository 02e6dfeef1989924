package reservation

import (
	"time"

	"itemreserve/model"
)

type CreateReservationReq struct {
	ItemID int64  `json:"item_id" validate:"required,gt=0"`
	Start  string `json:"start" validate:"required"`
	End    string `json:"end" validate:"required"`
	Notes  string `json:"notes" validate:"max=500"`
}

// Resp is a reservation with local-zone renderings added at the edge; the
// core never sees anything but UTC.
type Resp struct {
	model.Reservation
	StartLocal string `json:"start_local"`
	EndLocal   string `json:"end_local"`
}

func toResp(r *model.Reservation, loc *time.Location) Resp {
	return Resp{
		Reservation: *r,
		StartLocal:  r.Start.In(loc).Format("2006-01-02 15:04"),
		EndLocal:    r.End.In(loc).Format("2006-01-02 15:04"),
	}
}
