package model

type LoggerIE struct {
	Level     string `yaml:"level" valid:"required"`
	FilePath  string `yaml:"filePath" valid:"optional"`
	DebugMode bool   `yaml:"debugMode" valid:"optional"`
}

type ApiIE struct {
	Ip   string `yaml:"ip" valid:"required"`
	Port int    `yaml:"port" valid:"required"`
}
