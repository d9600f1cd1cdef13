package middleware

import (
	"context"
	"net/http"

	"github.com/irsalhamdi/honey-shop/api/web"
	"github.com/irsalhamdi/honey-shop/api/weberr"
	"github.com/irsalhamdi/honey-shop/i18n"
	"github.com/sirupsen/logrus"
)

func Errors(log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			fields := logrus.Fields{
				"req_id":  ContextRequestID(ctx),
				"message": err,
			}
			if f, ok := weberr.Fields(err); ok {
				for k, v := range f {
					fields[k] = v
				}
			}

			log.WithFields(fields).Error("ERROR")

			if body, code, ok := weberr.Response(err); ok {
				if er, ok := body.(*weberr.ErrorResponse); ok {
					localized := *er
					localized.Message = i18n.Sprintf(ctx, er.Message)
					body = &localized
				}
				return web.Respond(ctx, w, body, code)
			}

			er := weberr.ErrorResponse{
				Message: i18n.Sprintf(ctx, http.StatusText(http.StatusInternalServerError)),
			}
			return web.Respond(ctx, w, er, http.StatusInternalServerError)
		}
		return h
	}
	return m
}
