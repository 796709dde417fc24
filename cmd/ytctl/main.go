package main

import (
	"github.com/da33dut/yourtime/cmd/ytctl/arg"
)

func main() {
	arg.Execute()
}
