package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-envparse"
)

// LoadDotEnv 读取 .env 文件并注入进程环境。
// 规则：
// - 忽略不存在的文件；
// - 语法：# 注释、可选 export 前缀、单引号原样、双引号内处理转义；
// - 任意一行格式错误时整体失败，不注入任何变量；
// - 不覆盖已存在的环境变量。
func LoadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	vars, err := envparse.Parse(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for key, val := range vars {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, val); err != nil {
			return err
		}
	}
	return nil
}
