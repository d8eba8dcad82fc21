package bulkbilling

import (
	"github.com/smallbiznis/tirta/internal/bulkbilling/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bulkbilling.service",
	fx.Provide(service.New),
)
