package memory

import (
	"testing"

	"github.com/riskibarqy/touchline/internal/domain/record"
	"github.com/riskibarqy/touchline/internal/infrastructure/repository/storetest"
)

func TestRecordStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) record.Store {
		return NewRecordStore()
	})
}
