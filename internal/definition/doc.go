// Package definition читает файлы с определениями заданий.
//
// Формат (JSON или YAML):
//
//	moduleName: network          # обязательно, уникально среди файлов
//	description: VPC and subnets # default: "Creates the <moduleName> environment"
//	timeout: 3600                # секунды, число или строка, default: 3600
//	completionToken: https://... # необязательно
//	stacks:                      # порядок выполнения
//	  - templatePath: https://bucket.s3.amazonaws.com/vpc.json
//	    stackName: network-vpc
//	    regionName: us-east-1
//	    parameters:
//	      CidrBlock: 10.0.0.0/16
//
// Discover загружает все *.json, *.yaml и *.yml файлы каталога в лексическом порядке.
package definition
