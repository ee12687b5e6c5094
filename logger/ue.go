package logger

import (
	loggergo "github.com/Alonza0314/logger-go/v2"
	loggergoModel "github.com/Alonza0314/logger-go/v2/model"
	loggergoUtil "github.com/Alonza0314/logger-go/v2/util"
)

type UeLogger struct {
	*loggergo.Logger

	CfgLog  loggergoModel.LoggerInterface
	UeLog   loggergoModel.LoggerInterface
	MacLog  loggergoModel.LoggerInterface
	RaLog   loggergoModel.LoggerInterface
	HarqLog loggergoModel.LoggerInterface
	MuxLog  loggergoModel.LoggerInterface
	BsrLog  loggergoModel.LoggerInterface
	PhyLog  loggergoModel.LoggerInterface
	TunLog  loggergoModel.LoggerInterface
	PoolLog loggergoModel.LoggerInterface
	ApiLog  loggergoModel.LoggerInterface
}

func NewUeLogger(level loggergoUtil.LogLevelString, filePath string, debugMode bool) UeLogger {
	logger := newLogger(level, filePath, debugMode)

	return UeLogger{
		Logger: logger,

		CfgLog:  logger.WithTags(UE_TAG, CONFIG_TAG),
		UeLog:   logger.WithTags(UE_TAG, UE_TAG),
		MacLog:  logger.WithTags(UE_TAG, MAC_TAG),
		RaLog:   logger.WithTags(UE_TAG, RA_TAG),
		HarqLog: logger.WithTags(UE_TAG, HARQ_TAG),
		MuxLog:  logger.WithTags(UE_TAG, MUX_TAG),
		BsrLog:  logger.WithTags(UE_TAG, BSR_TAG),
		PhyLog:  logger.WithTags(UE_TAG, PHY_TAG),
		TunLog:  logger.WithTags(UE_TAG, TUN_TAG),
		PoolLog: logger.WithTags(UE_TAG, POOL_TAG),
		ApiLog:  logger.WithTags(UE_TAG, API_TAG),
	}
}
