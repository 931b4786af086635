package controllers

import (
	"github.com/vnkhanh/dspace-ocr-admin/config"
	"github.com/vnkhanh/dspace-ocr-admin/services"
)

// Dependencies dùng chung cho các controller, set một lần từ main.
var (
	Cfg    config.Config
	OCR    *services.OCRClient
	DSpace *services.DSpaceClient
	Push   *services.PushService
)

func Init(cfg config.Config) {
	Cfg = cfg
	OCR = services.NewOCRClient(cfg.OCRAPIURL)
	DSpace = services.NewDSpaceClient(cfg.DSpaceURL)
	Push = services.NewPushService(OCR, DSpace)
}
