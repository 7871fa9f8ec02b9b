package network

// VideoAPI is the client subset the bulk orchestrator depends on.
type VideoAPI interface {
	GetVideo(videoID string) (Video, error)
	DeleteVideo(videoID string) error
	CopyFromURL(request CopyFromURLRequest) (Video, error)
	EnableDownload(videoID string) (DownloadTicket, error)
	GetDownloadStatus(videoID string) (DownloadTicket, error)
}

// WatermarkAPI is the client subset watermark management depends on.
type WatermarkAPI interface {
	ListWatermarks() ([]Watermark, error)
	CreateWatermarkFromFile(path string, opts WatermarkOptions) (Watermark, error)
	CreateWatermarkFromURL(imageURL string, opts WatermarkOptions) (Watermark, error)
	DeleteWatermark(watermarkID string) error
}
