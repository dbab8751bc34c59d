package main

import (
	"github.com/ds124wfegd/vton/config"
	"github.com/ds124wfegd/vton/internal/appServer"
	"github.com/sirupsen/logrus"
)

func main() {
	v, err := config.LoadConfig("./config")
	if err != nil {
		logrus.Fatalf("error loading config: %s", err.Error())
	}

	cfg, err := config.ParseConfig(v)
	if err != nil {
		logrus.Fatalf("error parsing config: %s", err.Error())
	}

	appServer.NewServer(cfg)
}
