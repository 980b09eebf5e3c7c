package router

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "router")
