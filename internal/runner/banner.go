package runner

import (
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/hostsweep/pkg/version"
)

const banner = `
    __               __                              
   / /_  ____  _____/ /________      _____  ___  ____ 
  / __ \/ __ \/ ___/ __/ ___/ | /| / / _ \/ _ \/ __ \
 / / / / /_/ (__  ) /_(__  )| |/ |/ /  __/  __/ /_/ /
/_/ /_/\____/____/\__/____/ |__/|__/\___/\___/ .___/ 
                                            /_/`

// showBanner is used to show the banner to the user
func showBanner() {
	gologger.Print().Msgf("%s %s\n", banner, version.GetVersion())
	gologger.Print().Msgf("\t\tprojectdiscovery.io\n\n")
}
