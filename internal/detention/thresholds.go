package detention

import (
	"fmt"
	"time"

	"fleetwatch-backend/internal/models"
)

// Thresholds are the per-stop-type detention limits. DetentionAfter is the
// free time allowed at the stop; WarningLead is how far before detention the
// warning stage begins. Rail, no-billing and drop-hook stops have no warning
// stage (HasWarning false).
type Thresholds struct {
	DetentionAfter time.Duration
	WarningLead    time.Duration
	HasWarning     bool
}

var thresholdTable = map[models.StopType]Thresholds{
	models.StopTypeRegular:   {DetentionAfter: 120 * time.Minute, WarningLead: 30 * time.Minute, HasWarning: true},
	models.StopTypeMultiStop: {DetentionAfter: 60 * time.Minute, WarningLead: 15 * time.Minute, HasWarning: true},
	models.StopTypeRail:      {DetentionAfter: 60 * time.Minute},
	models.StopTypeNoBilling: {DetentionAfter: 15 * time.Minute},
	models.StopTypeDropHook:  {DetentionAfter: 30 * time.Minute},
}

// ConfigError reports a stop type the threshold table does not know about.
// Unknown types must fail loudly: silently defaulting miscategorizes drivers.
type ConfigError struct {
	StopType models.StopType
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("unknown stop type %q", e.StopType)
}

// ThresholdsFor looks up the detention thresholds for a stop type.
func ThresholdsFor(st models.StopType) (Thresholds, error) {
	t, ok := thresholdTable[st]
	if !ok {
		return Thresholds{}, &ConfigError{StopType: st}
	}
	return t, nil
}
