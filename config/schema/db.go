package schema

// Param holds the runtime-tunable knobs; ops edit the row and the service
// picks it up on the next refresh.
type Param struct {
	ID                    uint  `gorm:"primarykey"`
	PollFloorSeconds      int64 `json:"pollFloorSeconds"`
	PollCeilingSeconds    int64 `json:"pollCeilingSeconds"`
	SurfacedRejectedCount int   `json:"surfacedRejectedCount"`

	PinGateway string `json:"pinGateway"`
}

type IPRateWhitelist struct {
	ID         uint   `gorm:"primarykey"`
	OriginOrIP string `json:"originOrIP"`
	Available  bool   `json:"available"`
}
