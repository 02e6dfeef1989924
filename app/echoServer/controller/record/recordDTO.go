package record

type BeginRecordReq struct {
	ItemID        int64  `json:"item_id" validate:"required,gt=0"`
	UsageLocation string `json:"usage_location" validate:"max=255"`
}
