package schema

const (
	// rawdb buckets
	PinDataBucket = "pin-data"
	PinMetaBucket = "pin-meta"
)

// PinMeta describes one stored blob, keyed by its content digest.
type PinMeta struct {
	Digest      string `json:"digest"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Uploader    string `json:"uploader"`
	CreatedAt   int64  `json:"createdAt"`
}
