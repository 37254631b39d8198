package schema

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// HeirRef mirrors the recipient entries the web client sends.
type HeirRef struct {
	HeirAddress string `json:"heirAddress"`
}

// Message is one posthumous message an administrator leaves for a set of
// heirs. Recipients are stored as a JSON column; heir-side queries filter on
// it after the liveness check.
type Message struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	AdminAddress       string `gorm:"index:idx_msg_owner" json:"adminAddress"`
	InheritanceAddress string `gorm:"index:idx_msg_owner" json:"inheritanceContractAddress"`
	MessageText        string `json:"messageText"`

	HeirAddresses datatypes.JSON `json:"heirAddresses"`
}

func (m *Message) Recipients() ([]HeirRef, error) {
	refs := make([]HeirRef, 0, 4)
	if len(m.HeirAddresses) == 0 {
		return refs, nil
	}
	err := json.Unmarshal(m.HeirAddresses, &refs)
	return refs, err
}

func (m *Message) SetRecipients(refs []HeirRef) error {
	by, err := json.Marshal(refs)
	if err != nil {
		return err
	}
	m.HeirAddresses = datatypes.JSON(by)
	return nil
}
