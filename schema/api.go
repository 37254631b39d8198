package schema

type RespErr struct {
	Err string `json:"error"`
}

func (r RespErr) Error() string {
	return r.Err
}

// MessageReq is the create/update body the web client posts.
type MessageReq struct {
	AdminAddress       string    `json:"adminAddress"`
	InheritanceAddress string    `json:"inheritanceContractAddress"`
	MessageText        string    `json:"messageText"`
	HeirAddresses      []HeirRef `json:"heirAddresses"`
}

type RespPin struct {
	Digest string `json:"digest"`
	URL    string `json:"url"`
}

// RegistryResp is the heir-side view of the fan-out registry.
type RegistryResp struct {
	Pending  []string `json:"pending"`
	Rejected []string `json:"rejected"`
	Approved []string `json:"approved"`
}
