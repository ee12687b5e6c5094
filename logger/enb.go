package logger

import (
	loggergo "github.com/Alonza0314/logger-go/v2"
	loggergoModel "github.com/Alonza0314/logger-go/v2/model"
	loggergoUtil "github.com/Alonza0314/logger-go/v2/util"
)

type EnbLogger struct {
	*loggergo.Logger

	CfgLog  loggergoModel.LoggerInterface
	EnbLog  loggergoModel.LoggerInterface
	RrcLog  loggergoModel.LoggerInterface
	MobLog  loggergoModel.LoggerInterface
	SctpLog loggergoModel.LoggerInterface
	NgapLog loggergoModel.LoggerInterface
	SecLog  loggergoModel.LoggerInterface
	ApiLog  loggergoModel.LoggerInterface
}

func NewEnbLogger(level loggergoUtil.LogLevelString, filePath string, debugMode bool) EnbLogger {
	logger := newLogger(level, filePath, debugMode)

	return EnbLogger{
		Logger: logger,

		CfgLog:  logger.WithTags(ENB_TAG, CONFIG_TAG),
		EnbLog:  logger.WithTags(ENB_TAG, ENB_TAG),
		RrcLog:  logger.WithTags(ENB_TAG, RRC_TAG),
		MobLog:  logger.WithTags(ENB_TAG, MOB_TAG),
		SctpLog: logger.WithTags(ENB_TAG, SCTP_TAG),
		NgapLog: logger.WithTags(ENB_TAG, NGAP_TAG),
		SecLog:  logger.WithTags(ENB_TAG, SEC_TAG),
		ApiLog:  logger.WithTags(ENB_TAG, API_TAG),
	}
}
