package stores

import (
	"os"
	"strconv"

	"templatecanvas/core"
	"templatecanvas/stores/filesystem"
	"templatecanvas/stores/memory"
	"templatecanvas/stores/quota"
	"templatecanvas/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// GetStore selects a template store from the environment and wraps it with
// the storage quota ceiling.
func GetStore() core.TemplateStore {
	storageType := os.Getenv("STORAGE_TYPE")
	var store core.TemplateStore

	storageField := logrus.Fields{
		"storageType": storageType,
	}

	switch storageType {
	case "filesystem":
		basePath := os.Getenv("LOCAL_STORAGE_PATH")
		if basePath == "" {
			basePath = "./data"
		}
		storageField["basePath"] = basePath
		store = filesystem.NewTemplateStore(basePath)
	case "sqlite":
		dataSourceName := os.Getenv("DATA_SOURCE_NAME")
		if dataSourceName == "" {
			dataSourceName = "templates.db"
		}
		storageField["dataSourceName"] = dataSourceName
		store = sqlite.NewTemplateStore(dataSourceName)
	default:
		store = memory.NewTemplateStore()
		storageField["storageType"] = "in-memory"
	}

	capBytes := int64(0)
	if v := os.Getenv("STORAGE_QUOTA_BYTES"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			logrus.WithField("value", v).Warn("Invalid STORAGE_QUOTA_BYTES, using default")
		} else {
			capBytes = parsed
		}
	}
	storageField["quotaBytes"] = capBytes

	logrus.WithFields(storageField).Info("Use storage")
	return quota.New(store, capBytes)
}
