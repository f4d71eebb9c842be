// Package narrative 实现页面叙事层的核心逻辑：当前激活区块的登记、区块可见性上报、
// 置顶滚动区块的时间轴计算，以及背景可视化环的外观映射。
//
// 所有计算均不依赖浏览器：滚动偏移、视口几何等输入由调用方（HTTP 接口、CLI 或测试）
// 提供，输出为纯数据，便于逐帧驱动和单元测试。
package narrative
