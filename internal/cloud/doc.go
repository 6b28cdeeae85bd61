// Package cloud реализует обработчики шага поверх AWS SDK v2.
//
//   - VPCPreparer — находит default VPC региона и пишет его ID в SSM Parameter Store
//   - StackLauncher — получает шаблон и вызывает CloudFormation CreateStack
//   - StackMonitor — вызывает DescribeStacks и возвращает статус стека
//
// Клиенты создаются по одному набору на регион и кэшируются в ClientSet.
// Для тестов ClientSet можно собрать из заранее заданных клиентов (NewStaticClientSet).
package cloud
