package model

// AgentModels 购物助手自己维护的表
var AgentModels = []interface{}{
	&Conversation{},
	&Message{},
}

// CommerceModels 商品和购物车表，归商城子系统所有
// 只在本地开发和测试时由本服务建表
var CommerceModels = []interface{}{
	&Product{},
	&Cart{},
	&CartItem{},
}
