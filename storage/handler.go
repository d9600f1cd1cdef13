package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/irsalhamdi/honey-shop/api/web"
	"github.com/irsalhamdi/honey-shop/api/weberr"
	"github.com/irsalhamdi/honey-shop/i18n"
	"github.com/irsalhamdi/honey-shop/validate"
)

const maxImageSize = 4 << 20

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// HandleUpload stores the multipart "file" image under products/.
func HandleUpload(up Uploader) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+1<<20)

		f, hdr, err := r.FormFile("file")
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("reading uploaded file: %w", err))
		}
		defer f.Close()

		if hdr.Size > maxImageSize {
			return validate.Invalid(validate.FieldErrors{"file": "file must be at most 4MB"})
		}

		data, err := io.ReadAll(io.LimitReader(f, maxImageSize+1))
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("reading uploaded file: %w", err))
		}
		if len(data) > maxImageSize {
			return validate.Invalid(validate.FieldErrors{"file": "file must be at most 4MB"})
		}

		ct := http.DetectContentType(data)
		ext, ok := imageExt[ct]
		if !ok {
			return validate.Invalid(validate.FieldErrors{"file": "file must be a jpeg, png, webp or gif image"})
		}

		key := "products/" + validate.GenerateID() + ext
		url, err := up.Upload(ctx, key, ct, bytes.NewReader(data))
		if err != nil {
			return err
		}
		if url == "" {
			return errors.New("uploader returned no url")
		}

		res := web.Result{Success: true, Message: i18n.Sprintf(ctx, "File uploaded successfully"), Data: url}
		return web.Respond(ctx, w, res, http.StatusCreated)
	}
}
