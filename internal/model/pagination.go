package model

// TuneLogPage is the paginated payload returned by the log listing API.
type TuneLogPage struct {
	Data     []*TuneLog `json:"data"`
	Total    int        `json:"total"`
	Pages    int        `json:"pages"`
	PageNum  int        `json:"pageNum"`
	PageSize int        `json:"pageSize"`
}
