package controllers

import (
	"net/http"

	"github.com/akenterprises/storefront/api/responses"
	"github.com/akenterprises/storefront/pkg/notify"
)

// Notifications drains the buffered sync notices. Each notice is
// delivered once; the buffer empties on read.
func Notifications(buffer *notify.Buffer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notices := buffer.Drain()
		if notices == nil {
			notices = []notify.Notice{}
		}
		responses.WriteSuccess(w, notices)
	}
}
