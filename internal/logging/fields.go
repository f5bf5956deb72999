package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供一次 API 调用的方法/URL/请求 ID/命中状态字段。
func RequestFields(method, url, requestID string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"method":     method,
		"url":        url,
		"request_id": requestID,
		"cache_hit":  cacheHit,
	}
}
