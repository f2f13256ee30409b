package app

import (
	"github.com/vk/datajob/internal/registry"
	"github.com/vk/datajob/modules/glue"
	"github.com/vk/datajob/modules/lambda"
	"github.com/vk/datajob/modules/pass"
	"github.com/vk/datajob/modules/sagemaker"
)

// coreModules is the definitive list of all task kinds that are compiled
// into the datajob binary.
var coreModules = []registry.Module{
	&glue.Module{},
	&sagemaker.Module{},
	&lambda.Module{},
	&pass.Module{},
}
