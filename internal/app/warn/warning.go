package warn

import (
	log "github.com/sirupsen/logrus"

	"server-reward-engine/internal/pkg/metrics"
)

// Must logs a failed background job and counts it. err is returned unchanged.
func Must(desc string, err error) error {
	if err != nil {
		log.WithField("job", desc).Errorf("%s failed: %+v", desc, err)
		metrics.Reward().ObserveFailure(desc)
	}
	return err
}
