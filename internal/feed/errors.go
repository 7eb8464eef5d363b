package feed

import "fmt"

// Messages shown to users when a feed cannot be loaded.
const (
	ShopFetchMessage  = "データの取得に失敗しました"
	EventFetchMessage = "イベントデータの取得に失敗しました"
	ParseMessage      = "CSVパースエラー"
)

// FetchError reports a failed HTTP request or a non-2xx response. Status is
// zero when the request never produced a response.
type FetchError struct {
	URL     string
	Status  int
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: fetch %s: %v", e.Message, e.URL, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: fetch %s: status %d", e.Message, e.URL, e.Status)
	}
	return e.Message
}

func (e *FetchError) Unwrap() error { return e.Err }

// UserMessage is the text the views display in place of the list.
func (e *FetchError) UserMessage() string { return e.Message }

// ParseError reports a CSV body that could not be decoded.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return ParseMessage
	}
	return fmt.Sprintf("%s: %v", ParseMessage, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) UserMessage() string { return ParseMessage }
