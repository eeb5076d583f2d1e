package threshold

import "github.com/masq-node/accountant/logconfig"

var log = logconfig.NewPackageLogger("THRS")
