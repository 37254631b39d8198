package inheritchain

import (
	"github.com/EnzoRoselli/InheritChain/common"
	"github.com/inconshreveable/log15"
)

var log = common.NewLog("inheritchain")

func NewLog(serverName string) log15.Logger {
	return common.NewLog(serverName)
}
