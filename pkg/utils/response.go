package utils

// ResponseData is the envelope every REST handler answers with.
type ResponseData struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// PanicIfNeeded hands err to the Recovery middleware.
func PanicIfNeeded(err any) {
	if err != nil {
		panic(err)
	}
}
