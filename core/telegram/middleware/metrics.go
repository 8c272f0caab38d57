package middleware

import (
	tele "gopkg.in/telebot.v4"
)

// UpdateRecorder receives one observation per processed update.
type UpdateRecorder interface {
	Update(kind, status string)
}

// UpdateMetricsMiddleware reports every update with its kind and handler status.
func UpdateMetricsMiddleware(rec UpdateRecorder) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			err := next(c)
			if rec != nil {
				status := "ok"
				if err != nil {
					status = "fail"
				}
				rec.Update(UpdateKind(c.Update()), status)
			}
			return err
		}
	}
}
