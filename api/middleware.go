package api

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// GzipRequestMiddleware lets clients send gzip-compressed JSON bodies. The
// decompressed stream is capped at requestMaxSize+1 so readBody can still
// detect oversized payloads.
func GzipRequestMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !hasGzipEncoding(req.Header.Get(echo.HeaderContentEncoding)) {
				return next(c)
			}

			body := req.Body
			gr, err := gzip.NewReader(body)
			if err != nil {
				_ = body.Close()
				return c.JSON(http.StatusBadRequest, errorResponse{Detail: "invalid gzip body"})
			}

			req.Body = &gzipBody{Reader: io.LimitReader(gr, requestMaxSize+1), gz: gr, body: body}
			req.ContentLength = -1
			req.Header.Del(echo.HeaderContentEncoding)
			req.Header.Del(echo.HeaderContentLength)

			return next(c)
		}
	}
}

func hasGzipEncoding(header string) bool {
	for _, enc := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(enc), "gzip") {
			return true
		}
	}
	return false
}

type gzipBody struct {
	io.Reader
	gz   *gzip.Reader
	body io.Closer
}

func (g *gzipBody) Close() error {
	err := g.gz.Close()
	if cerr := g.body.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
