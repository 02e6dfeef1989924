package item

type CreateItemReq struct {
	Name         string `json:"name" validate:"required,max=100"`
	Function     string `json:"function" validate:"max=2000"`
	SerialNumber string `json:"serial_number" validate:"max=50"`
	SpaceID      int64  `json:"space_id" validate:"required,gt=0"`
}

type UpdateItemReq struct {
	Name         string `json:"name" validate:"required,max=100"`
	Function     string `json:"function" validate:"max=2000"`
	SerialNumber string `json:"serial_number" validate:"max=50"`
	SpaceID      int64  `json:"space_id" validate:"required,gt=0"`
}
